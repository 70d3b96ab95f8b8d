package ledger

// resumeZKABI is the subset of the ResumeZK contract ABI used here.
const resumeZKABI = `[
  {"type":"function","name":"submitResume","stateMutability":"nonpayable",
   "inputs":[{"name":"resumeHash","type":"bytes32"},{"name":"merkleRoot","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"verifyResume","stateMutability":"nonpayable",
   "inputs":[{"name":"resumeHash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"getResume","stateMutability":"view",
   "inputs":[{"name":"resumeHash","type":"bytes32"}],
   "outputs":[{"name":"","type":"tuple","internalType":"struct ResumeZK.Resume","components":[
     {"name":"merkleRoot","type":"bytes32"},
     {"name":"owner","type":"address"},
     {"name":"timestamp","type":"uint256"},
     {"name":"verified","type":"bool"}]}]},
  {"type":"function","name":"getUserResumes","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bytes32[]"}]},
  {"type":"function","name":"storeCredential","stateMutability":"nonpayable",
   "inputs":[{"name":"credType","type":"uint8"},{"name":"dataHash","type":"string"}],"outputs":[]},
  {"type":"function","name":"getUserCredential","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"},{"name":"credType","type":"uint8"}],
   "outputs":[{"name":"","type":"tuple","internalType":"struct ResumeZK.Credential","components":[
     {"name":"credType","type":"uint8"},
     {"name":"dataHash","type":"string"},
     {"name":"timestamp","type":"uint256"},
     {"name":"verified","type":"bool"}]}]},
  {"type":"function","name":"hasCredential","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"},{"name":"credType","type":"uint8"}],"outputs":[{"name":"","type":"bool"}]}
]`
