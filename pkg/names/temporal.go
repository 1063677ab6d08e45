package names

const (
	WorkflowNameBackup = "pidsvc-backup"

	// Activity Names
	ActivityNameGetPlan           = "GetPlanActivity"
	ActivityNameCleanup           = "CleanupActivity"
	ActivityNameRemoteStoreBackup = "RemoteStoreBackupActivity"
	ActivityNameConfigBackup      = "ConfigBackupActivity"
	ActivityNamePublish           = "PublishActivity"
	ActivityNameMirror            = "MirrorActivity"
	ActivityNameRecordRun         = "RecordRunActivity"

	// Application error types, see temporal.NewNonRetryableApplicationError
	ErrorTypeRemoteBackup = "RemoteBackupError"
	ErrorTypeConfigBackup = "ConfigBackupError"
)
