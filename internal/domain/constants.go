package domain

// AggregateName is the single aggregate type recorded in the event log.
const AggregateName = "transfer"

const (
	StatePrepared = "prepared"
	StateExecuted = "executed"
	StateRejected = "rejected"
	StateSettled  = "settled"
)

const (
	RejectionCancelled = "cancelled"
	RejectionExpired   = "expired"
)

const (
	EventTransferPrepared = "TransferPrepared"
	EventTransferExecuted = "TransferExecuted"
	EventTransferRejected = "TransferRejected"
	EventTransferSettled  = "TransferSettled"
)

// Charge roles resolved by the fee projection.
const (
	RoleSender   = "sender"
	RoleReceiver = "receiver"
	RoleLedger   = "ledger"
)

const (
	ChargeTypeFlat       = "flat"
	ChargeTypePercentage = "percentage"
)
