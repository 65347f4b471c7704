// Package textutil provides text normalization and similarity helpers used
// when matching show titles against provider search results.
package textutil
