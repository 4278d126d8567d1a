package sessionlog

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"time"
)

// overridable in tests
var timeNow = time.Now

// CompressOlder gzips session logs whose mtime is older than retentionDays.
// Only files inside a signature's log directory are touched; the position
// ledger, activity records and price history share the data dir and must
// survive retention. Originals are removed after a successful compress; a
// pre-existing .gz for the same file wins.
func CompressOlder(root string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := timeNow().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		if filepath.Base(filepath.Dir(p)) != "log" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
