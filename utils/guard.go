package utils

// Guard runs a cleanup when a constructor bails out before handing its resource to the caller:
//
//	guard := NewGuard(func() { f.Close() })
//	defer guard.OnFail()
//	...
//	guard.Success()
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a guard that runs onFailCleanup from OnFail unless Success was called.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success disarms the guard.
func (guard *Guard) Success() {
	guard.success = true
}
