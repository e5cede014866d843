// Package device opens and holds the two channels to a robot.
//
// A Link carries a service bus session and, for physical robots, an SSH
// connection with an SFTP client on top. Whether the robot is physical or
// virtual is decided once, while opening the link, and exposed as a Mode.
//
// Virtual detection is an environment heuristic, not a protocol exchange: a
// hostname that resolves but refuses (or never answers) the SSH socket is
// taken to be a simulated robot running on this machine. A physical robot
// behind a firewall that drops SSH is therefore misclassified as virtual.
package device
