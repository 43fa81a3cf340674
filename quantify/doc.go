// Package quantify implements the RNA-Seq read-counting pipeline: CIGAR
// interval extraction, record/pair filtering, mate-pair reassembly,
// library-type auto-detection, and the concurrent event-counting loop
// that produces a Context per BAM.
package quantify
