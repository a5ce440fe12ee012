/*
Package mailbox provides the filesystem-backed mailbox store the IMAP
front end operates on. Every user owns a directory below a configured
root, every folder inside it is a maildir. Folder names arrive in wire
form with the configured hierarchy separator and are translated to
filesystem paths on access.
*/
package mailbox
