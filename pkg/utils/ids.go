package utils

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GenerateExecutionID returns a fresh id for one scheduler run, used as the
// correlation id on every log line the run emits.
func GenerateExecutionID() string {
	id, err := gonanoid.New()
	if err != nil {
		// nanoid only fails when the OS entropy source does; fall back
		// to something still unique enough for correlation.
		return fmt.Sprintf("exec-%d", time.Now().UnixNano())
	}
	return "exec_" + id
}
