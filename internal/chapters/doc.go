// Package chapters reads Matroska chapter XML and locates timestamps within
// the resulting chapter list.
package chapters
