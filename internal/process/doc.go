// Package process isolates the OS-specific parts of supervising an external
// renderer or transformer: placing it in its own process group and killing
// that group (the process and any helpers it spawned) when it overruns.
package process
