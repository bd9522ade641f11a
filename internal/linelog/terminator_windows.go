//go:build windows

package linelog

const lineTerminator = "\r\n"
