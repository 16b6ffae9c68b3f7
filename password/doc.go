// Package password implements credential hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The stub backend stores default passwords and reset passwords this way.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Enforce password policy (length etc.); that is the Flow's pre-flight check.
//   - Log plaintext passwords.
package password
