package reliability

import (
	"wininvestigator/internal/eventlog"
)

// payloadSchema names the positional EventData slots of one event layout.
// Negative indices mean the layout does not carry the field.
type payloadSchema struct {
	Version        string
	Source         int
	AppVersion     int
	FaultingModule int
	ExceptionCode  int
}

var (
	// Application Error 1000: AppName, AppVersion, AppTimeStamp, ModuleName,
	// ModuleVersion, ModuleTimeStamp, ExceptionCode, FaultingOffset, ...
	crashSchemaV1 = payloadSchema{
		Version:        "application-error/1000",
		Source:         0,
		AppVersion:     1,
		FaultingModule: 3,
		ExceptionCode:  6,
	}
	// Application Hang 1002: AppName, AppVersion, ProcessId, StartTime, ...
	hangSchemaV1 = payloadSchema{
		Version:        "application-hang/1002",
		Source:         0,
		AppVersion:     1,
		FaultingModule: -1,
		ExceptionCode:  -1,
	}
)

// fields is the lenient view of a record under a schema: any slot beyond the
// event's payload reads as absent.
type fields struct {
	Source         *string
	AppVersion     *string
	FaultingModule *string
	ExceptionCode  *string
}

func (s payloadSchema) extract(r eventlog.Record) fields {
	return fields{
		Source:         r.Field(s.Source),
		AppVersion:     r.Field(s.AppVersion),
		FaultingModule: r.Field(s.FaultingModule),
		ExceptionCode:  r.Field(s.ExceptionCode),
	}
}
