// Package keywords resolves the keyword list for a monitor pass from a
// shopping ranking page, a trend RSS feed, or an operator supplied list.
package keywords
