//go:build !windows

package linelog

const lineTerminator = "\n"
