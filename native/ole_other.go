//go:build !windows

package native

// OLE is unavailable off Windows; Connect always fails with ErrUnsupported.
type OLE struct{}

func Connect(opts ServerOptions) (*OLE, error) {
	return nil, ErrUnsupported
}

func (d *OLE) Dispatch(method string, slots []Slot) (Code, error) {
	return CodeFailed, ErrUnsupported
}

func (d *OLE) Release() {}
