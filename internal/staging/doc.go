// Package staging sweeps candidate files abandoned by interrupted runs.
//
// Every encode writes its candidate to a hidden temporary sibling of the
// source (see fileutil.TempSibling). A crash or SIGKILL between encode and
// commit leaves that sibling behind. Discovery already ignores these names;
// CleanStale removes the ones older than a cutoff so they do not accumulate.
package staging
