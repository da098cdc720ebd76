package security

// BcryptHasher adapts the package functions to the hasher interface the
// handlers consume.
type BcryptHasher struct{}

func (BcryptHasher) Hash(plain string) (string, error) {
	return HashPassword(plain)
}

func (BcryptHasher) Check(hash, plain string) error {
	return CheckPassword(hash, plain)
}
