//go:build windows

package native

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows"
)

var (
	modoleaut32 = windows.NewLazySystemDLL("oleaut32.dll")

	procSafeArrayCreateVector = modoleaut32.NewProc("SafeArrayCreateVector")
	procSafeArrayPutElement   = modoleaut32.NewProc("SafeArrayPutElement")
	procSafeArrayDestroy      = modoleaut32.NewProc("SafeArrayDestroy")
)

// OLE dispatches calls through IDispatch::Invoke on a COM server.
//
// An OLE value is bound to the thread that created it (COM apartment rules);
// callers must keep every method call on that thread.
type OLE struct {
	root    *ole.IDispatch
	objects map[string]*ole.IDispatch // dotted path -> sub-object
	ids     map[string]int32          // full method name -> DISPID
}

// Connect initializes COM on the calling thread and binds to the server
// named by opts.
func Connect(opts ServerOptions) (*OLE, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		// S_FALSE: already initialized on this thread, still needs a matching uninit.
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != 1 {
			return nil, fmt.Errorf("CoInitializeEx: %w", err)
		}
	}

	var unk *ole.IUnknown
	var err error
	if opts.Attach {
		unk, err = oleutil.GetActiveObject(opts.ProgID)
	} else {
		unk, err = oleutil.CreateObject(opts.ProgID)
	}
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("%s: %w", opts.ProgID, err)
	}
	disp, err := unk.QueryInterface(ole.IID_IDispatch)
	unk.Release()
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("%s: IDispatch: %w", opts.ProgID, err)
	}

	d := &OLE{
		root:    disp,
		objects: make(map[string]*ole.IDispatch),
		ids:     make(map[string]int32),
	}
	if opts.Root != "" {
		root, err := d.object(opts.Root)
		if err != nil {
			d.Release()
			return nil, err
		}
		// Paths are relative to the new root from here on.
		delete(d.objects, opts.Root)
		for path, obj := range d.objects {
			obj.Release()
			delete(d.objects, path)
		}
		disp.Release()
		d.root = root
	}
	return d, nil
}

// Dispatch implements Dispatcher.
func (d *OLE) Dispatch(method string, slots []Slot) (Code, error) {
	obj, name, err := d.resolve(method)
	if err != nil {
		return CodeFailed, err
	}
	id, ok := d.ids[method]
	if !ok {
		id, err = obj.GetSingleIDOfName(name)
		if err != nil {
			return CodeFailed, fmt.Errorf("%s: unknown member: %w", method, err)
		}
		d.ids[method] = id
	}

	refs := make([]ole.VARIANT, len(slots))
	defer func() {
		for i := range refs {
			ole.VariantClear(&refs[i])
		}
	}()

	params := make([]interface{}, len(slots))
	for i, s := range slots {
		if s.Mode == ByVal && !s.Array && s.Value != nil {
			params[i] = s.Value
			continue
		}
		v, err := toVariant(s)
		if err != nil {
			return CodeFailed, fmt.Errorf("argument %d: %w", i, err)
		}
		refs[i] = v
		params[i] = &refs[i]
	}

	ret, err := obj.Invoke(id, ole.DISPATCH_METHOD, params...)
	if err != nil {
		return CodeFailed, fmt.Errorf("%s: %w", method, err)
	}
	defer ret.Clear()

	for i, s := range slots {
		if s.Mode != ByRef {
			continue
		}
		v, err := fromVariant(&refs[i], s)
		if err != nil {
			return CodeFailed, fmt.Errorf("argument %d: %w", i, err)
		}
		slots[i].Value = v
	}
	return CodeOf(ret.Value())
}

// Release drops every interface pointer and uninitializes COM.
func (d *OLE) Release() {
	for path, obj := range d.objects {
		obj.Release()
		delete(d.objects, path)
	}
	if d.root != nil {
		d.root.Release()
		d.root = nil
	}
	ole.CoUninitialize()
}

// resolve splits "A.B.Method" into the sub-object at "A.B" and "Method".
func (d *OLE) resolve(method string) (*ole.IDispatch, string, error) {
	i := strings.LastIndexByte(method, '.')
	if i < 0 {
		return d.root, method, nil
	}
	obj, err := d.object(method[:i])
	if err != nil {
		return nil, "", err
	}
	return obj, method[i+1:], nil
}

// object walks a dotted property path from the root, caching every prefix.
func (d *OLE) object(path string) (*ole.IDispatch, error) {
	if obj, ok := d.objects[path]; ok {
		return obj, nil
	}
	parent := d.root
	name := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		var err error
		parent, err = d.object(path[:i])
		if err != nil {
			return nil, err
		}
		name = path[i+1:]
	}
	v, err := oleutil.GetProperty(parent, name)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", path, err)
	}
	obj := v.ToIDispatch()
	if obj == nil {
		v.Clear()
		return nil, fmt.Errorf("property %s is not an object", path)
	}
	d.objects[path] = obj
	return obj, nil
}

func elemVT(k Kind) ole.VT {
	switch k {
	case Int:
		return ole.VT_I4
	case Double:
		return ole.VT_R8
	case Bool:
		return ole.VT_BOOL
	case String:
		return ole.VT_BSTR
	}
	return ole.VT_EMPTY
}

// toVariant builds the VARIANT a by-reference slot points at. The caller
// owns the result and must VariantClear it.
func toVariant(s Slot) (ole.VARIANT, error) {
	value := s.Value
	if s.Mode == Discard || value == nil {
		value = s.Zero()
	}
	if s.Array {
		return arrayVariant(s.Kind, value)
	}
	switch x := value.(type) {
	case int32:
		return ole.NewVariant(ole.VT_I4, int64(x)), nil
	case float64:
		return ole.NewVariant(ole.VT_R8, int64(math.Float64bits(x))), nil
	case bool:
		if x {
			return ole.NewVariant(ole.VT_BOOL, -1), nil
		}
		return ole.NewVariant(ole.VT_BOOL, 0), nil
	case string:
		bstr := ole.SysAllocStringLen(x)
		return ole.NewVariant(ole.VT_BSTR, int64(uintptr(unsafe.Pointer(bstr)))), nil
	}
	return ole.VARIANT{}, fmt.Errorf("%w: %T for %s", ErrType, value, s.Kind)
}

func arrayVariant(kind Kind, value any) (ole.VARIANT, error) {
	vt := elemVT(kind)
	n := Slot{Value: value}.Len()
	psa, _, callErr := procSafeArrayCreateVector.Call(uintptr(vt), 0, uintptr(n))
	if psa == 0 {
		return ole.VARIANT{}, fmt.Errorf("SafeArrayCreateVector: %v", callErr)
	}
	put := func(i int, p unsafe.Pointer) error {
		idx := int32(i)
		hr, _, _ := procSafeArrayPutElement.Call(psa, uintptr(unsafe.Pointer(&idx)), uintptr(p))
		if hr != 0 {
			return ole.NewError(hr)
		}
		return nil
	}

	var err error
	switch a := value.(type) {
	case []int32:
		for i := 0; i < len(a) && err == nil; i++ {
			err = put(i, unsafe.Pointer(&a[i]))
		}
	case []float64:
		for i := 0; i < len(a) && err == nil; i++ {
			err = put(i, unsafe.Pointer(&a[i]))
		}
	case []bool:
		for i := 0; i < len(a) && err == nil; i++ {
			var vb int16
			if a[i] {
				vb = -1
			}
			err = put(i, unsafe.Pointer(&vb))
		}
	case []string:
		for i := 0; i < len(a) && err == nil; i++ {
			// SafeArrayPutElement copies the BSTR.
			bstr := ole.SysAllocStringLen(a[i])
			err = put(i, unsafe.Pointer(bstr))
			ole.SysFreeString(bstr)
		}
	default:
		err = fmt.Errorf("%w: %T for []%s", ErrType, value, kind)
	}
	if err != nil {
		procSafeArrayDestroy.Call(psa)
		return ole.VARIANT{}, err
	}
	return ole.NewVariant(ole.VT_ARRAY|vt, int64(psa)), nil
}

func fromVariant(v *ole.VARIANT, s Slot) (any, error) {
	if !s.Array {
		return Coerce(s.Kind, false, v.Value())
	}
	arr := v.ToArray()
	if arr == nil {
		if v.VT == ole.VT_EMPTY || v.VT == ole.VT_NULL {
			return s.Zero(), nil
		}
		return nil, fmt.Errorf("%w: VARIANT type %d for []%s", ErrType, v.VT, s.Kind)
	}
	return Coerce(s.Kind, true, arr.ToValueArray())
}
