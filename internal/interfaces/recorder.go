package interfaces

// ActivityRecorder is the external price/activity tracker. RecordNoTrade
// annotates a session that terminated without an executed trade.
type ActivityRecorder interface {
	RecordNoTrade(signature, date string) error
}
