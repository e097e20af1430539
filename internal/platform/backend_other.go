//go:build !linux

package platform

// Open reports ErrUnsupported: only X11 displays are queried.
func Open() (Backend, func(), error) {
	return nil, nil, ErrUnsupported
}
