// Package clock provides an injectable time source so watchdog timers and
// restart polling can be tested deterministically.
package clock
