// Package compute provides device contexts, host/device buffers and
// kernel-launching modules.
//
// A Context opens one device of a registered Backend and must be initialized
// and applied before device work is issued through it. A Buffer keeps a host
// copy and one device copy per context; mapping a side for access copies the
// newest data across first. Modules bind to a buffer without owning it and
// launch a Kernel over its first axis.
//
// The "host" backend is always registered. Other backends register
// themselves when their package is imported.
package compute
