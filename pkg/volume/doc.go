// ABOUTME: Output volume management package
// ABOUTME: Provides the platform volume interface, ducking ledger and software mixer
// Package volume manages the output volume channels around a playback session.
//
// A Ledger captures the media and voice channel levels once per session,
// ducks both channels while audio plays, and writes the captured levels back
// on restore. Platform is the volume/routing subsystem the ledger drives;
// SoftwareMixer is an in-process Platform whose levels become an
// attenuation factor for the output backends.
package volume
