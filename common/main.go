package common

import (
	"github.com/mcnijman/go-emailaddress"
	"github.com/sirupsen/logrus"
)

// ServiceName is the name used to identify this service in logs and traces.
const ServiceName = "ticket-tracker"

// Log is the base log entry for the service. Packages add their own fields to it.
var Log = logrus.WithFields(logrus.Fields{"service": ServiceName})

// SetLogLevel sets the logging level from its name, falling back to info if the name isn't recognized.
func SetLogLevel(levelName string) {
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		Log.Warnf("unrecognized log level `%s`, using info", levelName)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// ValidateEmailAddress returns an error if the format of an email address is invalid.
func ValidateEmailAddress(emailAddress string) error {
	_, err := emailaddress.Parse(emailAddress)
	return err
}
