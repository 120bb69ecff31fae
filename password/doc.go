// Package password provides argon2id hashing with PHC-encoded output and
// the strength policy applied to new passwords.
//
// Every Hash call draws a fresh random salt, so hashing the same password
// twice always yields two different strings. Verify recomputes the digest
// with the stored parameters and compares in constant time.
package password
