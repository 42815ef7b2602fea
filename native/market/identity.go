package market

// IdentityGate classifies an address as an externally-controlled account
// versus a programmatic one. The marketplace rejects programmatic accounts
// in every caller and counterparty role so auction flow cannot be driven by
// untrusted automated code.
type IdentityGate interface {
	IsExternal(addr [20]byte) (bool, error)
}

// codeGate is the default gate: an account is external when it carries no
// executable code hash in state. Unknown addresses classify as external.
type codeGate struct {
	state State
}

func (g codeGate) IsExternal(addr [20]byte) (bool, error) {
	if g.state == nil {
		return false, errNilState
	}
	account, err := g.state.GetAccount(addr[:])
	if err != nil {
		return false, err
	}
	return account.IsExternal(), nil
}
