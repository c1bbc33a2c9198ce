// Command ctrdecrypt decrypts 3DS cartridge images and CIA archives in a
// directory by driving ctrtool, decrypt and makerom, and can convert the
// decrypted archives to CCI.
//
// Usage:
//
//	ctrdecrypt run [--input DIR] [--convert | --no-convert] [--jobs N] [--verbose]
//	ctrdecrypt doctor
//	ctrdecrypt history [RUN_ID]
//	ctrdecrypt config init | validate
//	ctrdecrypt version
package main
