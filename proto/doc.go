// Package proto holds the descriptors of the protocols this module
// implements, one subpackage per protocol.
package proto
