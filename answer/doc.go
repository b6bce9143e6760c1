// Package answer provides the comparison strategies used to check a submitted
// secret-question answer against the stored one.
//
// [Plain] keeps the stored answer verbatim and compares byte-for-byte in constant
// time. [Argon2] stores an argon2id PHC string and verifies by recomputation.
// Neither strategy normalizes case, whitespace, or Unicode form.
package answer
