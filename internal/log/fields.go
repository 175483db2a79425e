package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldGroupID       = "group_id"
	FieldExpenseID     = "expense_id"
	FieldShareID       = "share_id"
	FieldAmountCents   = "amount_cents"
	FieldMonth         = "month"
	FieldEventKey      = "event_key"
	FieldLedgerRef     = "ledger_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentNotify  = "notify"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpSettle   = "settle"
	OpEvaluate = "evaluate"
	OpMirror   = "mirror"
	OpUpsert   = "upsert"
)

// LogFields accumulates key/value pairs for a structured log call.
type LogFields []any

// NewFields creates an empty field set
func NewFields() LogFields {
	return LogFields{}
}

// WithComponent adds the component field
func (f LogFields) WithComponent(component string) LogFields {
	return append(f, FieldComponent, component)
}

// WithOperation adds the operation field
func (f LogFields) WithOperation(operation string) LogFields {
	return append(f, FieldOperation, operation)
}

// WithError adds the error field
func (f LogFields) WithError(err error) LogFields {
	return append(f, FieldError, err)
}

// WithGroup adds the group id field
func (f LogFields) WithGroup(groupID string) LogFields {
	return append(f, FieldGroupID, groupID)
}

// WithExpense adds expense identity and amount fields
func (f LogFields) WithExpense(expenseID, groupID string, amountCents int64) LogFields {
	return append(f,
		FieldExpenseID, expenseID,
		FieldGroupID, groupID,
		FieldAmountCents, amountCents)
}

// WithShare adds share identity and amount fields
func (f LogFields) WithShare(shareID string, amountCents int64) LogFields {
	return append(f,
		FieldShareID, shareID,
		FieldAmountCents, amountCents)
}

// WithMonth adds the budget month field
func (f LogFields) WithMonth(month string) LogFields {
	return append(f, FieldMonth, month)
}

// WithLedgerRef adds the ledger row reference field
func (f LogFields) WithLedgerRef(ref string) LogFields {
	return append(f, FieldLedgerRef, ref)
}

// ToSlice returns the fields as alternating key/value arguments for slog
func (f LogFields) ToSlice() []any {
	return f
}
