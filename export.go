package pdk

// Export return codes understood by the host: zero means the call
// succeeded, anything else means it failed and the error (if set) explains
// why.
const (
	CodeSuccess int32 = 0
	CodeFailure int32 = 1
)

// Fail reports err to the host and returns CodeFailure. A nil err still
// fails the call, with a generic message.
func (p *PDK) Fail(err error) int32 {
	msg := "plugin call failed"
	if err != nil {
		msg = err.Error()
	}
	p.SetError(msg)
	return CodeFailure
}

// Succeed returns CodeSuccess when err is nil and Fail(err) otherwise. It
// lets an export end with `return p.Succeed(p.SetOutputString(out))`.
func (p *PDK) Succeed(err error) int32 {
	if err != nil {
		return p.Fail(err)
	}
	return CodeSuccess
}
