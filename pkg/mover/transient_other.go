//go:build !unix

package mover

func isTransient(error) bool { return false }
