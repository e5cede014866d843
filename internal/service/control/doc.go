// Package control runs the runtime commands: listing content, starting and
// stopping behaviors and services, autonomous life, power, posture, volume
// and the naoqi process itself.
package control
