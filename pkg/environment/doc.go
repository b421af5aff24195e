// Package environment carries the deployment environment (development,
// staging, production) through request contexts. The HTTP error renderer reads
// it to decide whether internal error details may leak into response bodies.
package environment
