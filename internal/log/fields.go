package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldUserID     = "user_id"
	FieldRecordID   = "record_id"
	FieldCategoryID = "category_id"
	FieldReminderID = "reminder_id"
	FieldDirection  = "direction"
	FieldAmount     = "amount"
	FieldDate       = "date"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldHandle     = "schedule_handle"
	FieldPath       = "path"
	FieldDuration   = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentAuth      = "auth"
	ComponentSession   = "session"
	ComponentLedger    = "ledger"
	ComponentReminders = "reminders"
	ComponentAMQP      = "amqp"
	ComponentExport    = "export"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpInitialize = "initialize"
	OpSeed       = "seed"
	OpRegister   = "register"
	OpLogin      = "login"
	OpLogout     = "logout"
	OpRestore    = "restore"
	OpPassword   = "change_password"
	OpProfile    = "update_profile"
	OpCreate     = "create"
	OpDelete     = "delete"
	OpSchedule   = "schedule"
	OpCancel     = "cancel"
	OpExport     = "export"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation  = "validation_error"
	ErrorTypeDatabase    = "database_error"
	ErrorTypeAuth        = "auth_error"
	ErrorTypeNotFound    = "not_found_error"
	ErrorTypeConflict    = "conflict_error"
	ErrorTypeUnavailable = "unavailable_error"
	ErrorTypeInternal    = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error and error type fields
func (f LogFields) WithError(err error, errType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errType
	}
	return f
}

// WithUser adds user ID field
func (f LogFields) WithUser(id int64) LogFields {
	f[FieldUserID] = id
	return f
}

// WithRecord adds record-related fields
func (f LogFields) WithRecord(id, categoryID int64, direction, amount, date string) LogFields {
	f[FieldRecordID] = id
	f[FieldCategoryID] = categoryID
	f[FieldDirection] = direction
	f[FieldAmount] = amount
	f[FieldDate] = date
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
