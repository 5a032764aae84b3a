// Package password hashes and verifies login passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters so a
// credential store can re-hash after the next successful login.
//
// The package never stores passwords and never logs plaintext or parameters.
package password
