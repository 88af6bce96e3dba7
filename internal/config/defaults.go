package config

const (
	defaultLogDir            = "~/.local/share/burnloop/logs"
	defaultJobsDir           = "~/.local/share/burnloop/jobs"
	defaultDataDir           = "~/.local/share/burnloop/data"
	defaultLogRetentionDays  = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultEngraverExe       = "/opt/lightburn/LightBurn"
	defaultCommandHost       = "127.0.0.1"
	defaultCommandPort       = 19840
	defaultReplyPort         = 19841
	defaultCommandTimeoutMS  = 100
	defaultHandshakeMS       = 200
	defaultHandshakeSec      = 10
	defaultConfirmPollMS     = 50
	defaultSettleMS          = 200
	defaultStartSettleMS     = 1000
	defaultTriggerBaud       = 115200
	defaultReadTimeoutMS     = 100
	defaultOpenSettleMS      = 2000
	defaultOpenRetrySec      = 2
	defaultPrimaryCanvasMM   = 100.0
	defaultSecondaryCanvasMM = 150.0
	defaultLine3SpacingMM    = 4.0
	defaultNotifyTimeoutSec  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			JobsDir: defaultJobsDir,
			DataDir: defaultDataDir,
		},
		Engraver: Engraver{
			Executable:           defaultEngraverExe,
			CommandHost:          defaultCommandHost,
			CommandPort:          defaultCommandPort,
			ReplyPort:            defaultReplyPort,
			CommandTimeoutMillis: defaultCommandTimeoutMS,
			HandshakeIntervalMS:  defaultHandshakeMS,
			HandshakeTimeoutSec:  defaultHandshakeSec,
			ConfirmPollMillis:    defaultConfirmPollMS,
			SettleMillis:         defaultSettleMS,
			StartSettleMillis:    defaultStartSettleMS,
		},
		Trigger: Trigger{
			Baud:              defaultTriggerBaud,
			ReadTimeoutMillis: defaultReadTimeoutMS,
			OpenSettleMillis:  defaultOpenSettleMS,
			OpenRetrySeconds:  defaultOpenRetrySec,
		},
		Artifacts: Artifacts{
			PrimaryCanvasMM:   defaultPrimaryCanvasMM,
			SecondaryCanvasMM: defaultSecondaryCanvasMM,
			Line3SpacingMM:    defaultLine3SpacingMM,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSec,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
