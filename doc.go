/*

Package lorawan dissects and builds LoRaWAN PHY payloads for wire-level
security testing.

A Message owns a single mutable byte buffer; typed views (MHDR, FHDRView,
MacPayloadView, JoinRequestView, JoinAcceptView, RejoinRequestView,
ProprietaryView) read and write fields directly through that buffer rather
than holding their own copies, so editing a frame in place and re-signing it
never risks a view and the wire bytes drifting apart.

*/
package lorawan
