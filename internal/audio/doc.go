// Package audio plays alert sounds when the daemon cannot restore the
// desired session. It uses the beep library to play WAV, OGG and MP3
// files and synthesizes a short chime when no file is configured.
package audio
