// Package connectors holds clients for the remote systems slack-archive
// retrieves from. Each connector implements a driven port.
package connectors
