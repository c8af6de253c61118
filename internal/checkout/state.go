package checkout

type State string

const (
	StateIdle                    State = "IDLE"
	StateAddressSelected         State = "ADDRESS_SELECTED"
	StateCreatingPaymentSession  State = "CREATING_PAYMENT_SESSION"
	StateAwaitingGatewayCallback State = "AWAITING_GATEWAY_CALLBACK"
	StateVerifying               State = "VERIFYING"
	StateSucceeded               State = "SUCCEEDED"
	StateFailed                  State = "FAILED"
)

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) String() string {
	return string(s)
}

var transitions = map[State][]State{
	StateIdle:                    {StateAddressSelected},
	StateAddressSelected:         {StateAddressSelected, StateCreatingPaymentSession},
	StateCreatingPaymentSession:  {StateAwaitingGatewayCallback, StateIdle},
	StateAwaitingGatewayCallback: {StateVerifying, StateFailed},
	StateVerifying:               {StateSucceeded, StateFailed},
	StateSucceeded:               {StateIdle},
	StateFailed:                  {StateIdle, StateAddressSelected},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FailureReason classifies a terminal FAILED state. A user dismissing the
// payment widget is an outcome, not an error.
type FailureReason string

const (
	ReasonNone                 FailureReason = ""
	ReasonEmptyCart            FailureReason = "empty-cart"
	ReasonNoAddress            FailureReason = "no-address"
	ReasonSessionCreation      FailureReason = "payment-session-failed"
	ReasonGatewayUnavailable   FailureReason = "gateway-unavailable"
	ReasonUserCancelled        FailureReason = "user-cancelled"
	ReasonVerificationRejected FailureReason = "verification-rejected"
)
