// Package password hashes and verifies secrets for principals and clients.
//
// # Algorithms
//
// [Bcrypt] is the default and produces the $2a$ hashes already present in existing user
// and client tables. [Argon2] produces PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Chain] hashes with one algorithm and verifies with whichever configured algorithm
// recognizes the stored hash, so a table can migrate between algorithms one login at a
// time.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other tokenauth package.
//   - Log plaintext passwords or hashes.
package password
