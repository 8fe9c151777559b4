// Package audit records administrative changes to the domain mapping table.
//
// Each create, update or delete issued through the admin API produces one
// Event, written as a JSON line by a FileLogger. The current file is
// audit.log under the configured directory; when rotation is enabled it is
// renamed to audit-<timestamp>.log once it reaches MaxSize, and only the
// newest MaxFiles rotated files are retained.
//
//	logger, err := audit.NewFileLogger(audit.FileLoggerConfig{BasePath: dir, Rotate: true})
//	...
//	event := audit.NewEvent(r, audit.EventTypeMappingCreate, audit.EventStatusSuccess, "example.com")
//	event.IdpAlias = "corp-oidc"
//	_ = logger.Log(r.Context(), event)
//
// NewNoOpLogger is used when auditing is disabled.
package audit
