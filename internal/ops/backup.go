package ops

import (
	"github.com/hpungsan/coursesync/internal/logger"
	"github.com/hpungsan/coursesync/internal/store"
)

// BackupOutput lists which course files got a new backup.
type BackupOutput struct {
	Written []string `json:"written"`
	Existed []string `json:"existed"`
}

// BackupAll backs up every course file that has no backup yet. Existing
// backups are never touched.
func BackupAll(s store.Store, log *logger.Logger) (*BackupOutput, error) {
	if log == nil {
		log = logger.NewNop()
	}
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errNoCourses()
	}
	out := &BackupOutput{Written: []string{}, Existed: []string{}}
	for _, name := range names {
		written, err := s.Backup(name)
		if err != nil {
			return out, err
		}
		if written {
			log.Info("backed up course record", "file", name)
			out.Written = append(out.Written, name)
		} else {
			log.Debug("backup exists, skipping", "file", name)
			out.Existed = append(out.Existed, name)
		}
	}
	return out, nil
}
