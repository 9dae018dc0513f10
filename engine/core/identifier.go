package core

import "fmt"

// Identifiers hands out small integer ids and reuses released slots, the
// same way GL reuses object names.
type Identifiers struct {
	owners []interface{}
}

func NewIdentifiers(capacity int) *Identifiers {
	return &Identifiers{
		owners: make([]interface{}, 0, capacity),
	}
}

// Acquire returns the first free slot, growing the table when none is left.
func (i *Identifiers) Acquire(owner interface{}) uint32 {
	for id, o := range i.owners {
		// Existing free spot. Take it.
		if o == nil {
			i.owners[id] = owner
			return uint32(id)
		}
	}
	i.owners = append(i.owners, owner)
	return uint32(len(i.owners) - 1)
}

func (i *Identifiers) Release(id uint32) error {
	if int(id) >= len(i.owners) {
		return fmt.Errorf("identifier release: id '%d' out of range (max=%d). Nothing was done", id, len(i.owners))
	}
	if i.owners[id] == nil {
		return fmt.Errorf("identifier release: id '%d' is not in use. Nothing was done", id)
	}
	i.owners[id] = nil
	return nil
}

// Owner returns what was registered for id, or nil.
func (i *Identifiers) Owner(id uint32) interface{} {
	if int(id) >= len(i.owners) {
		return nil
	}
	return i.owners[id]
}

// InUse counts the slots currently taken.
func (i *Identifiers) InUse() int {
	n := 0
	for _, o := range i.owners {
		if o != nil {
			n++
		}
	}
	return n
}
