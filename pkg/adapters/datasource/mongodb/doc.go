// Package mongodb registers the MongoDB engine with the datasource registry.
// Build with the no_mongodb tag to leave the MongoDB driver out of the binary.
package mongodb
