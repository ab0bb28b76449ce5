package config

const (
	defaultConfigPath            = "~/.config/editorial/config.toml"
	defaultDataDir               = "~/.local/share/editorial"
	defaultLogDir                = "~/.local/share/editorial/logs"
	defaultAPIBind               = "127.0.0.1:7615"
	defaultJournalName           = "LAI 615 Journal"
	defaultBaseURL               = "http://127.0.0.1:7615"
	defaultDaysToReview          = 7
	defaultDaysToEditReview      = 3
	defaultDaysOnExtension       = 1
	defaultNumberOfReviewers     = 2
	defaultDueDateHour           = 17
	defaultExpirySweepInterval   = 3600
	defaultNotificationBackend   = "log"
	defaultSubjectPrefix         = "[CISL Journal] "
	defaultSender                = "Editorial <no-reply@localhost>"
	defaultSMTPPort              = 587
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
	defaultAuditLogFileName      = "analytics.log"
	notificationBackendSMTP      = "smtp"
	notificationBackendNtfy      = "ntfy"
	notificationBackendLog       = "log"
	notificationBackendNone      = "none"
	logFormatAuto                = "auto"
	logFormatConsole             = "console"
	logFormatJSON                = "json"
	maxReviewWindowDays          = 365
	maxNumberOfReviewers         = 50
	hoursPerDay                  = 24
	defaultAutomaticReviewerFlag = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Journal: Journal{
			Name:    defaultJournalName,
			BaseURL: defaultBaseURL,
		},
		Review: Review{
			DaysToReview:                 defaultDaysToReview,
			DaysToEditReview:             defaultDaysToEditReview,
			DaysOnExtension:              defaultDaysOnExtension,
			AutomaticallyAssignReviewers: defaultAutomaticReviewerFlag,
			NumberOfReviewers:            defaultNumberOfReviewers,
			DueDateHour:                  defaultDueDateHour,
			ExpirySweepInterval:          defaultExpirySweepInterval,
		},
		Notifications: Notifications{
			Backend:        defaultNotificationBackend,
			SubjectPrefix:  defaultSubjectPrefix,
			Sender:         defaultSender,
			SMTPPort:       defaultSMTPPort,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
