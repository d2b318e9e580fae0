package utils

// Guard runs a cleanup when a function that allocated a resource (e.g: an open SPI device) returns
// early with an error, and skips it once the function declares success:
//
//	f, err := os.OpenFile(path, os.O_RDWR, 0)
//	guard := NewGuard(func() { f.Close() })
//	defer guard.OnFail()
//	if err := configure(f); err != nil { return nil, err }
//	guard.Success()
//	return f, nil
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard that calls onFailCleanup from OnFail unless Success was called first.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success declares the function succeeded and the cleanup must not run.
func (guard *Guard) Success() {
	guard.success = true
}
