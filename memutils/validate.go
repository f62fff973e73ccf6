package memutils

// Validatable is anything that can check its own bookkeeping for consistency, such as block
// metadata or the disk that owns it
type Validatable interface {
	Validate() error
}
