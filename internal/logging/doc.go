// Package logging is the leveled logger shared by every component of the
// preview engine. The level comes from LOG_LEVEL (debug, info, warn,
// error); DEBUG=1 forces debug output regardless. Fatal always prints and
// exits.
package logging
