package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldDate      = "date"
	FieldTariffID  = "tariff_id"
	FieldTarget    = "target"
	FieldStage     = "stage"
	FieldCount     = "count"
	FieldDuration  = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentSource    = "source"
	ComponentStorage   = "storage"
	ComponentSheets    = "sheets"
	ComponentScheduler = "scheduler"
	ComponentAMQP      = "amqp"
)
