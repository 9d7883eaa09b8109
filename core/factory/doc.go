// Package factory builds pluggable modules, such as metrics sinks, from
// configuration entries of the form
//
//	sinks:
//	  - type: influx
//	    conf:
//	      url: http://localhost:8086
//	      bucket: cogen
//
// Each implementation registers a Factory under its type name and decodes
// its own conf map with Decode.
package factory
