/*
Package imap holds the protocol vocabulary shared by the rest of ceres: the
typed representation of client command lines, the per-connection session state
machine, and the SASL PLAIN credential decoding used during AUTHENTICATE.

Parsing never fails hard. A line that does not match the implemented grammar
is returned as a command of kind Unrecognized and answered by the dispatcher
with an untagged BAD response, keeping the connection alive. This rules out
the substring matching of earlier front ends of this kind, where e.g. a
password containing "LOGOUT" could terminate the session.

Please refer to https://tools.ietf.org/html/rfc3501#section-3 for full
documentation on the states and https://tools.ietf.org/html/rfc3501 for the
full IMAP v4 rev1 RFC.
*/
package imap
