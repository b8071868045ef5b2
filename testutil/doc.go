// Package testutil provides scripted gateway and store fakes shared by
// package tests. It must never be imported from non-test code.
package testutil
