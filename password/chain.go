package password

import "errors"

// Chain hashes with Primary and verifies with the first of Primary or Legacy that
// recognizes the stored hash.
type Chain struct {
	Primary Hasher
	Legacy  []Hasher
}

// NewChain returns a chain. primary must be non-nil.
func NewChain(primary Hasher, legacy ...Hasher) (*Chain, error) {
	if primary == nil {
		return nil, errors.New("primary hasher required")
	}
	return &Chain{Primary: primary, Legacy: legacy}, nil
}

func (c *Chain) Hash(password string) (string, error) {
	return c.Primary.Hash(password)
}

func (c *Chain) Verify(password, encoded string) (bool, error) {
	h := c.pick(encoded)
	if h == nil {
		return false, ErrUnsupportedHash
	}
	return h.Verify(password, encoded)
}

func (c *Chain) Supports(encoded string) bool {
	return c.pick(encoded) != nil
}

// NeedsRehash reports whether encoded was produced by a legacy algorithm.
func (c *Chain) NeedsRehash(encoded string) bool {
	return !c.Primary.Supports(encoded) && c.Supports(encoded)
}

func (c *Chain) pick(encoded string) Hasher {
	if c.Primary.Supports(encoded) {
		return c.Primary
	}
	for _, h := range c.Legacy {
		if h != nil && h.Supports(encoded) {
			return h
		}
	}
	return nil
}
