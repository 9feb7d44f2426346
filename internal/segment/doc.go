// Package segment defines the structured transcript segment, its identifier
// scheme (E{episode}.C{chapter}.S{segment}), the defensive parser for
// generation service responses, and speaker label normalization.
//
// ParseRecords is pure: it never talks to the network, which keeps the
// salvage rules testable against hand-crafted payloads.
package segment
