// Package jwt seals persisted session records as signed JWTs so a record
// edited outside the store fails verification and is discarded on read.
package jwt
