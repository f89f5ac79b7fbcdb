// Package cli implements the templategen command line.
//
// Commands:
//
//	serve     run the HTTP API
//	generate  build (or reuse) a template and print or copy the archive
//	key       print the cache key of a request
//	status    report whether a request's archive exists
//	prune     apply the retention policy to the artifact store
//	version   print the version
package cli
