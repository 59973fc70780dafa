// Package storage keeps a durable record of messenger runs.
//
// Every contact attempt is appended as a Delivery and every finished run as
// a Run. The log is write-mostly; reads exist for the history command.
package storage
