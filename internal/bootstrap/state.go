package bootstrap

// State is a point in the bootstrap sequence.
//
//	Start -> ConfigLoaded -> AwaitingOperatorInput
//	                      -> BinaryEnsured -> CertificateEnsured -> Serving
//
// Any failure before Serving ends in Failed.
type State int

const (
	StateStart State = iota
	StateConfigLoaded
	StateAwaitingOperatorInput
	StateBinaryEnsured
	StateCertificateEnsured
	StateServing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateConfigLoaded:
		return "CONFIG_LOADED"
	case StateAwaitingOperatorInput:
		return "AWAITING_OPERATOR_INPUT"
	case StateBinaryEnsured:
		return "BINARY_ENSURED"
	case StateCertificateEnsured:
		return "CERTIFICATE_ENSURED"
	case StateServing:
		return "SERVING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal returns true for states the sequence never leaves.
func (s State) Terminal() bool {
	return s == StateAwaitingOperatorInput || s == StateServing || s == StateFailed
}
