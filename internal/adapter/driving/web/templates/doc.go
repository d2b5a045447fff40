// Package templates holds the shared page chrome for the web GUI.
package templates
