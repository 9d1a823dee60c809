// Package process reaps browser process trees left behind after export.
package process
