// Package decryptor wraps the binary that decrypts a title in place, writing
// one NCCH partition file per content into its working directory.
package decryptor
