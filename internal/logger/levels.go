package logger

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// levelOff disables every message. logrus has no such level, so it sits below
// PanicLevel.
const levelOff logrus.Level = 0xff

// parseLevel converts a level name to a logrus level. "off" is accepted on top
// of the logrus names.
func parseLevel(level string) (logrus.Level, error) {
	if strings.EqualFold(level, "off") {
		return levelOff, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return lvl, nil
}

func levelToString(level logrus.Level) string {
	if level == levelOff {
		return "off"
	}
	return level.String()
}

// enabled reports whether a message at msg passes the configured level.
func enabled(configured, msg logrus.Level) bool {
	if configured == levelOff {
		return false
	}
	return msg <= configured
}
