package artifact

import (
	"fmt"
	"time"
)

// defaultFilename names an artifact when the user does not pick one, such as
// generated_ruby_1724380000.rb.
func defaultFilename(language, ext string, now time.Time) string {
	return fmt.Sprintf("generated_%s_%d%s", language, now.Unix(), ext)
}

// backupName names the copy taken before a file is overwritten, such as
// gen.rb.backup.1724380000.
func backupName(path string, now time.Time) string {
	return fmt.Sprintf("%s.backup.%d", path, now.Unix())
}
