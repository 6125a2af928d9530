// Package schema has models, constants and settings shared by every part of triad.
package schema
